// Package mocks provides configurable fakes for the codec and cache
// collaborator interfaces, shared by the worker and scheduler tests.
package mocks
