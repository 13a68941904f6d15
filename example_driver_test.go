// SPDX-License-Identifier: GPL-3.0-or-later

package weft_test

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/bassosimone/weft"
)

// exampleLineCodec frames newline-terminated requests and responses.
type exampleLineCodec struct{}

func (exampleLineCodec) ReadRequest(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func (exampleLineCodec) WriteResponse(bw *bufio.Writer, resp string) error {
	_, err := bw.WriteString(resp + "\n")
	return err
}

// This example shows how to serve a single accepted connection with a
// service: the driver frames exchanges with the codec and classifies the
// client's orderly close as a benign termination.
func ExampleConnDriver() {
	drv := weft.NewConnDriver[struct{}, string, string](
		weft.NewConfig(), exampleLineCodec{}, weft.DefaultSLogger())

	echo := weft.ServiceFunc[struct{}, string, string](
		func(ctx *weft.Context[struct{}], req string) (string, error) {
			return strings.ToUpper(req), nil
		})

	clientConn, serverConn := net.Pipe()
	go func() {
		defer clientConn.Close()
		fmt.Fprintf(clientConn, "ping\n")
		line, _ := bufio.NewReader(clientConn).ReadString('\n')
		fmt.Print(line)
	}()

	err := drv.Drive(weft.NewContext(struct{}{}), serverConn, echo)
	fmt.Printf("err=%v\n", err)

	// Output:
	// PING
	// err=<nil>
}
