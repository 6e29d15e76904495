// Package driving defines the ports the transports call into: the HTTP API,
// the MCP server, the CLI and the TUI all drive the same chat, search,
// document and system services.
//
// services.RAGService implements every port here except SettingsService,
// which services.SettingsService implements.
package driving
