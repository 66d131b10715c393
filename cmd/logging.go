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
	"context"
	"log/slog"
	"os"

	"github.com/cardinalhq/shardsort/internal/idgen"
	"github.com/cardinalhq/shardsort/internal/logctx"
)

var myInstanceID int64

// setupLogging configures the default slog logger and returns a context
// that carries it and is cancelled on SIGINT/SIGTERM.
func setupLogging(servicename string) (context.Context, context.CancelFunc) {
	myInstanceID = idgen.DefaultFlakeGenerator.NextID()

	doneCtx, doneCancel := handleSignals(context.Background())

	// Configure slog level based on DEBUG environment variables
	var opts *slog.HandlerOptions
	if os.Getenv("DEBUG") != "" || os.Getenv("SHARDSORT_DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)).With(
		slog.String("service", servicename),
		slog.Int64("instanceID", myInstanceID),
	))

	return logctx.WithLogger(doneCtx, slog.Default()), doneCancel
}
