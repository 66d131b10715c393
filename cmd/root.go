// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/shardsort/internal/orchestrator"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shardsort",
	Short: "Totally ordered sorting of delimited files",
	Long:  `Sort large tab-delimited files by an integer key column into globally ordered output shards.`,
}

// runStarted flips once the sort command's RunE begins. Errors raised
// before that point are argument problems and map to the usage exit code.
var runStarted bool

// exitCode maps an Execute error onto the process exit status: 0 all jobs
// succeeded, 1 at least one job failed, 2 usage or validation error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if orchestrator.IsUsageError(err) || !runStarted {
		return 2
	}
	return 1
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	os.Exit(exitCode(err))
}
