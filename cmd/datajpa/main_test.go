/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("DATABASE_DBNAME", ":memory:")
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestMigrateCommand(t *testing.T) {
	require.NoError(t, execute(t, "migrate"))
}

func TestSeedCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - name: teamA\n    members:\n      - {name: member1, age: 10}\n"), 0o600))

	require.NoError(t, execute(t, "seed", "--file", path))
	require.Error(t, execute(t, "seed"))
	require.Error(t, execute(t, "seed", "--file", filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestBadConfigFile(t *testing.T) {
	require.Error(t, execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate"))
}
