package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"github.com/and161185/localvault/internal/client"
	"github.com/and161185/localvault/internal/config"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/ui"
)

const callTimeout = 30 * time.Second

// app carries the streams and daemon access shared by all commands.
type app struct {
	configPath string
	socket     string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// dial connects to the daemon; replaced in tests.
	dial func(token string) (*client.Client, error)
	// spin enables the progress spinner on stderr.
	spin bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	a := &app{in: in, out: out, errOut: errOut}
	a.dial = a.dialSocket
	if f, ok := errOut.(*os.File); ok {
		a.spin = term.IsTerminal(int(f.Fd()))
	}
	return a
}

func (a *app) dialSocket(token string) (*client.Client, error) {
	socket := a.socket
	if socket == "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return nil, err
		}
		socket = cfg.Server.Socket
	}
	return client.Dial(socket, token)
}

// withClient runs fn with a connected client carrying the saved token, if any.
func (a *app) withClient(ctx context.Context, fn func(ctx context.Context, c *client.Client) error) error {
	token, _ := loadToken()
	c, err := a.dial(token)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return hint(fn(ctx, c))
}

// progress shows a spinner while fn runs. Key derivation takes a noticeable moment.
func (a *app) progress(msg string, fn func() error) error {
	if !a.spin {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.errOut))
	s.Suffix = " " + msg
	s.Start()
	defer s.Stop()
	return fn()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// hint appends the command that resolves common state errors.
func hint(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrUnauthorized), errors.Is(err, errs.ErrVaultLocked):
		return fmt.Errorf("%w, run %s", err, ui.Code.Sprint("vault unlock"))
	case errors.Is(err, errs.ErrVaultNotFound):
		return fmt.Errorf("%w, run %s", err, ui.Code.Sprint("vault init"))
	default:
		return err
	}
}
