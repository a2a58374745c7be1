package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{}

func newTCPClient() Client { return &tcpClient{} }

func (c *tcpClient) Delegate(ctx context.Context, command string) (bool, error) {
	if strings.ContainsAny(command, "\r\n") {
		return false, fmt.Errorf("command %q spans lines", command)
	}
	port, ok := DetectResident(ctx)
	if !ok {
		return false, nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	timeout := dialTimeout(ctx, 2*time.Second)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false, nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(bangPrefix + command + "\n"); err != nil {
		return true, err
	}
	if err := w.Flush(); err != nil {
		return true, err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, err
	}
	switch status {
	case queuedResponse:
		return true, nil
	case rejectedResponse:
		msg, _ := io.ReadAll(br)
		return true, errors.New(string(msg))
	default:
		return true, fmt.Errorf("unexpected resident reply %q", strings.TrimSpace(status))
	}
}
