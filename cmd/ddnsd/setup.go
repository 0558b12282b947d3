package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// runSetup prompts for a Cloudflare API token, verifies it, and stores it in path.
func runSetup(ctx context.Context, path string, prompt io.Writer, logger zerolog.Logger, opts ...cloudflare.Option) error {
	if path == "" {
		return errors.New("api_token_file must be set to run setup")
	}
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%q already exists; remove it first to replace the token", path)
	}

	fmt.Fprintln(prompt, "Enter Cloudflare API Token:")
	bytekey, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return errors.Wrap(err, "error reading from stdin")
	}
	key := strings.TrimSpace(string(bytekey))

	if err := verifyToken(ctx, key, logger, opts...); err != nil {
		return err
	}
	if err := writeKey(path, key); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("token written")
	return nil
}

func verifyToken(ctx context.Context, key string, logger zerolog.Logger, opts ...cloudflare.Option) error {
	api, err := cloudflare.NewWithAPIToken(key, opts...)
	if err != nil {
		return errors.Wrap(err, "error creating api client")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	logger.Info().Msg("verifying token...")
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to verify api token")
	}
	if result.Status != "active" {
		return errors.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)
	}
	logger.Info().Msg("token verified successfully")
	return nil
}

// writeKey creates path with mode 0600 and writes key to it. An existing file is never overwritten.
func writeKey(path, key string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, "unable to create directory for \"%s\"", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, "unable to create \"%s\"", path)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return errors.Wrapf(err, "unable to write \"%s\"", path)
	}
	return nil
}

// readKey returns the first line of the file at path.
func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "error reading key")
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", errors.Wrap(err, "error reading line")
	}
	key = strings.TrimSpace(string(keyb))
	if key == "" {
		return "", errors.Errorf("key file \"%s\" is empty", path)
	}
	return key, nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "error checking keyfile permissions")
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0o600 && perms != 0o400 {
		return errors.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}
