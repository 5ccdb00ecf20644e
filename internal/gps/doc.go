// Package gps runs NMEA acquisition on top of a uart.Driver.
//
// Bytes pushed by the link side are pulled in the foreground, framed into
// sentences, and decoded into a reused CombinedFix. A snapshot is published
// only once both a GGA and an RMC have been decoded since the last one.
//
// The package also opens the byte sources a Link can pump: a serial port
// or a gpsd daemon relaying raw NMEA.
package gps
