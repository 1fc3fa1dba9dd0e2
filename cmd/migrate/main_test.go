package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaikishore143/ecommerce-backennd/internal/app"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/postgres"
)

type fakeMigrator struct {
	state    postgres.MigrationState
	upSteps  []int
	downCall []int
	err      error
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	f.state.Version, f.state.Applied, f.state.Pending = 2, 2, 0
	return f.err
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downCall = append(f.downCall, steps)
	f.state.Version, f.state.Applied, f.state.Pending = 1, 1, 1
	return f.err
}

func (f *fakeMigrator) MigrationState(context.Context) (postgres.MigrationState, error) {
	return f.state, nil
}

func (f *fakeMigrator) Close() error { return nil }

func lookup(values map[string]string) app.EnvLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-steps=2", "down"}, lookup(map[string]string{app.EnvPostgresDSN: " postgres://x "}))
	require.NoError(t, err)
	assert.Equal(t, options{command: "down", steps: 2, dsn: "postgres://x"}, opts)

	opts, err = parseArgs([]string{"-dsn=postgres://flag"}, lookup(nil))
	require.NoError(t, err)
	assert.Equal(t, "up", opts.command)
	assert.Equal(t, "postgres://flag", opts.dsn)

	_, err = parseArgs([]string{"status"}, lookup(nil))
	assert.ErrorContains(t, err, app.EnvPostgresDSN)

	_, err = parseArgs([]string{"-dsn=x", "sideways"}, lookup(nil))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	m := &fakeMigrator{}
	var out bytes.Buffer

	require.NoError(t, run(ctx, m, options{command: "up"}, &out))
	assert.Equal(t, []int{0}, m.upSteps)
	assert.Equal(t, "up ok: version=2 applied=2 pending=0\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, m, options{command: "down", steps: 1}, &out))
	assert.Equal(t, []int{1}, m.downCall)
	assert.Contains(t, out.String(), "version=1")

	out.Reset()
	require.NoError(t, run(ctx, m, options{command: "status"}, &out))
	assert.Equal(t, []int{0}, m.upSteps)

	m.err = errors.New("lock timeout")
	assert.ErrorContains(t, run(ctx, m, options{command: "up"}, &out), "lock timeout")
}
