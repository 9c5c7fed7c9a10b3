package main

import "context"
import "testing"

import "github.com/stretchr/testify/assert"

func TestRejectsUnknownCheckpoint(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "--checkpoint-dir", t.TempDir(), "--checkpoint", "middle", "--download=false"})
	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, `unknown checkpoint "middle"`)
}

func TestMissingCheckpoint(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "--checkpoint-dir", t.TempDir(), "--checkpoint", "latest", "--download=false"})
	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "no latest_checkpoint in")
}
