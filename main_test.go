package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sibusten/derpibooru-archive-scraper/Database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unix newline", input: "fluttershy\n", want: "fluttershy"},
		{name: "windows newline", input: "princess luna\r\n", want: "princess luna"},
		{name: "no newline", input: "artist:hoofclid", want: "artist:hoofclid"},
		{name: "only first line", input: "safe\nexplicit\n", want: "safe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tag, err := promptTag(strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag)
			assert.Equal(t, "Enter search tag: ", out.String())
		})
	}

	_, err := promptTag(strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOptionsComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("downloadDir: /srv/ponies\narchiveBaseURL: http://from-file/\n"), 0o644))

	o := &Options{}
	cmd := newRootCmd(o)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--archive-url", "http://from-flag/", "--timeout", "10s"}))

	require.NoError(t, o.Complete(cmd, []string{"fluttershy"}))
	require.NoError(t, o.Validate())

	assert.Equal(t, "fluttershy", o.Tag)
	assert.Equal(t, "/srv/ponies", o.Config.DownloadDir)
	assert.Equal(t, "http://from-flag/", o.Config.ArchiveBaseURL)
	assert.Equal(t, 10*time.Second, o.Config.RequestTimeout)
	assert.Equal(t, Database.DefaultConnectionString, o.Config.ConnectionString)
}

func TestOptionsCompletePrompts(t *testing.T) {
	o := &Options{}
	cmd := newRootCmd(o)
	cmd.SetIn(strings.NewReader("rainbow dash\n"))
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.ParseFlags(nil))

	require.NoError(t, o.Complete(cmd, nil))
	assert.Equal(t, "rainbow dash", o.Tag)
	assert.Equal(t, "Enter search tag: ", out.String())
}

func TestOptionsValidateEmptyTag(t *testing.T) {
	o := &Options{Config: Database.DefaultConfig()}
	assert.Error(t, o.Validate())
}
