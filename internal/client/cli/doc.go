// Package cli provides the interactive portal command-line client.
//
// NewApp wires configuration, credential storage, the session store, the
// authenticated API client and the auth service. App.Run starts an optional
// Prometheus endpoint and blocks in a REPL until the user exits.
//
// Commands cover login and logout, inspecting the profile, raw API calls
// (get, post, put, delete), multipart uploads, document downloads and
// concurrent fetches. Expired sessions surface as a prompt to log in again.
package cli
