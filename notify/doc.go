// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify provides inactivity Notifier implementations: a slog-backed
// notifier for the server and an in-memory recorder for tests and tooling.
package notify
