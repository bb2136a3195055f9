// Package api exposes lectern operations as request/response services with
// transport-friendly DTOs. The HTTP daemon and the CLI both consume this
// layer, keeping store rows and internal errors out of wire payloads.
package api
