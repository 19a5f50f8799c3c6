package auth_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgrecorder/internal/auth"
)

func TestFieldLabels(t *testing.T) {
	assert.Equal(t, "Enter phone number: ", auth.FieldPhoneNumber.Label())
	assert.Equal(t, "Enter authentication code: ", auth.FieldCode.Label())
	assert.Equal(t, "Enter authentication password: ", auth.FieldPassword.Label())

	assert.True(t, auth.FieldPassword.Secret())
	assert.False(t, auth.FieldCode.Secret())
	assert.False(t, auth.FieldPhoneNumber.Secret())
}

func TestConsolePrompterReadsLines(t *testing.T) {
	out := &bytes.Buffer{}
	p := auth.NewConsolePrompter(strings.NewReader("54321\r\n+998901234567\nno newline"), out)
	defer p.Close()
	ctx := context.Background()

	code, err := p.Prompt(ctx, auth.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, "54321", code)
	assert.Equal(t, "Enter authentication code: ", out.String())

	phone, err := p.Prompt(ctx, auth.FieldPhoneNumber)
	require.NoError(t, err)
	assert.Equal(t, "+998901234567", phone)

	// Not a terminal: the password is read as a plain line.
	pass, err := p.Prompt(ctx, auth.FieldPassword)
	require.NoError(t, err)
	assert.Equal(t, "no newline", pass)

	assert.Equal(t, "Enter authentication code: Enter phone number: Enter authentication password: ", out.String())

	_, err = p.Prompt(ctx, auth.FieldCode)
	assert.ErrorIs(t, err, auth.ErrInputClosed)
}

func TestConsolePrompterKeepsInputVerbatim(t *testing.T) {
	p := auth.NewConsolePrompter(strings.NewReader("  12 34  \n\n"), io.Discard)
	defer p.Close()

	code, err := p.Prompt(context.Background(), auth.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, "  12 34  ", code)

	empty, err := p.Prompt(context.Background(), auth.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestConsolePrompterCancelledAnswerIsDropped(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := auth.NewConsolePrompter(pr, io.Discard)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Prompt(ctx, auth.FieldCode)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		_, _ = pw.Write([]byte("late\nnext\n"))
	}()

	got, err := p.Prompt(context.Background(), auth.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, "next", got)
}

func TestConsolePrompterClosed(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := auth.NewConsolePrompter(pr, io.Discard)
	p.Close()
	p.Close()

	_, err := p.Prompt(context.Background(), auth.FieldPhoneNumber)
	assert.ErrorIs(t, err, auth.ErrInputClosed)
}
