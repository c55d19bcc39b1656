// Package modtcp implements the hvps.Transport interface over one TCP
// connection to the supply.
//
// The wire protocol is line-oriented ASCII: every frame is a 2-digit
// command code, a colon, the payload, and a CR LF terminator. Set-style
// commands (codes 00-03) are acknowledged by echoing the exact frame;
// query commands (codes above 03) are answered with the code echo
// followed by the payload, or with the literal error sentinel "10:ERR".
//
// The client connects lazily and disconnects on every socket-level
// failure, so the connection is never left half-open between exchanges.
// A response timeout and an empty read are treated identically.
package modtcp
