// Package singleinstance keeps one resident FinalShot per user session and
// lets command-line invocations hand bang commands to it over loopback TCP.
package singleinstance

import (
	"context"
	"errors"
)

// ErrAlreadyRunning is returned by Server.Start when another resident owns
// the endpoint.
var ErrAlreadyRunning = errors.New("another FinalShot instance is already running")

// Server owns the TCP endpoint and answers delegated commands.
type Server interface {
	// Start listens on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request, or the ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one delegated request awaiting a reply.
type Conn interface {
	Request() Request
	// Accept tells the client the command was queued.
	Accept() error
	// Reject sends a human-readable reason.
	Reject(msg string) error
	Close() error
}

// Request is a single delegated bang command.
type Request struct {
	Command string
}

// Client delegates bang commands to a resident.
type Client interface {
	// Delegate sends command to the resident. If no resident answers,
	// it returns delegated=false and a nil error.
	Delegate(ctx context.Context, command string) (delegated bool, err error)
}

// NewServer returns the TCP implementation.
func NewServer() Server { return newTCPServer() }

// NewClient returns the TCP implementation.
func NewClient() Client { return newTCPClient() }
