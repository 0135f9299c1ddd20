package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing Sigfox modem traffic. It uses the
// signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// Commands and responses of the Wisol family are terminated by a single CR.
// Some firmwares (and terminal emulators sitting in the middle) emit CRLF
// instead, so a LF left over at the start of a token is dropped.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, Terminator); i >= 0 {
		return i + 1, bytes.TrimPrefix(data[0:i], []byte("\n")), nil
	}

	if atEOF {
		return len(data), bytes.TrimPrefix(data, []byte("\n")), nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	switch {
	case line == OK, strings.HasPrefix(line, ERROR):
		return TypeFinal
	default:
		return TypeData
	}
}
