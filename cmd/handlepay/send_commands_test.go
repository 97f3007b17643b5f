package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func resolveContext(t *testing.T, args []string, flags map[string]string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("resolve", flag.ContinueOnError)
	set.String("share-text", "", "")
	set.String("share-url", "", "")
	require.NoError(t, set.Parse(args))
	for name, value := range flags {
		require.NoError(t, set.Set(name, value))
	}
	return cli.NewContext(nil, set, nil)
}

func TestRecipientFromArgs_Positional(t *testing.T) {
	c := resolveContext(t, []string{"@alice"}, nil)

	got, err := recipientFromArgs(c)
	require.NoError(t, err)
	assert.Equal(t, "@alice", got)
}

func TestRecipientFromArgs_ShareURL(t *testing.T) {
	c := resolveContext(t, nil, map[string]string{
		"share-url": "https://twitter.com/alice/status/1234567890",
	})

	got, err := recipientFromArgs(c)
	require.NoError(t, err)
	assert.Equal(t, "@alice", got)
}

func TestRecipientFromArgs_ShareURLPreferredOverText(t *testing.T) {
	c := resolveContext(t, nil, map[string]string{
		"share-text": "check out @bob on twitter",
		"share-url":  "https://x.com/alice",
	})

	got, err := recipientFromArgs(c)
	require.NoError(t, err)
	assert.Equal(t, "@alice", got)
}

func TestRecipientFromArgs_ShareTextFallback(t *testing.T) {
	c := resolveContext(t, nil, map[string]string{
		"share-text": "@carol",
	})

	got, err := recipientFromArgs(c)
	require.NoError(t, err)
	assert.Equal(t, "@carol", got)
}

func TestRecipientFromArgs_NoHandleInShare(t *testing.T) {
	c := resolveContext(t, nil, map[string]string{
		"share-url": "https://example.com/nothing",
	})

	_, err := recipientFromArgs(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handle found")
}

func TestRecipientFromArgs_MissingRecipient(t *testing.T) {
	c := resolveContext(t, nil, nil)

	_, err := recipientFromArgs(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipient is required")
}
