//go:build !linux

package gps

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a serial port in 8N1 mode at the given baud rate.
func OpenSerial(path string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        path,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}
