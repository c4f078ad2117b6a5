package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"execsvc", "help"}, &out, &bytes.Buffer{})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "USAGE")
}

func TestRun_UnknownCommand(t *testing.T) {
	var errOut bytes.Buffer
	code := Run([]string{"execsvc", "bogus"}, &bytes.Buffer{}, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Unknown command")
}

func TestRun_NoArgsStartsServer(t *testing.T) {
	called := false
	original := startServer
	startServer = func() { called = true }
	defer func() { startServer = original }()

	code := Run([]string{"execsvc"}, &bytes.Buffer{}, &bytes.Buffer{})

	assert.Equal(t, 0, code)
	assert.True(t, called)
}
