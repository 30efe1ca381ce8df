package sshlaunch

import (
	"strings"
	"testing"
)

func TestScriptWithoutVenv(t *testing.T) {
	got := Script("/srv/cracken", "", "s3cr3t", BootstrapArgs{
		WorkerEntryPoint: "./cracken-worker",
		ServerHost:       "head.example.com",
		ServerPort:       9000,
		QueueID:          "abcd",
	})

	want := "cd '/srv/cracken'\n" +
		"export BULLPEN_AUTHKEY='s3cr3t'\n" +
		"nohup './cracken-worker' 'head.example.com' 9000 'abcd' >/dev/null 2>&1 &\n" +
		"disown\n"

	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestScriptActivatesVenv(t *testing.T) {
	got := Script("/srv/cracken", "/srv/cracken/venv", "s3cr3t", BootstrapArgs{
		WorkerEntryPoint: "./cracken-worker",
		ServerHost:       "head",
		ServerPort:       9000,
		QueueID:          "q",
	})

	if want := "source '/srv/cracken/venv'/bin/activate\n"; !strings.Contains(got, want) {
		t.Errorf("expected venv activation line %q in:\n%s", want, got)
	}
}

func TestShellQuoteEscapesEmbeddedQuote(t *testing.T) {
	got := shellQuote("it's-a-path")
	want := `'it'\''s-a-path'`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
