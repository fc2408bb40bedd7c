// Package config loads the server configuration file of spec §6: a
// flat key=value text file, one setting per line, '#'-prefixed comment
// lines ignored. Recognized keys and their defaults are grounded
// directly on the KEY_*/DEFAULT_* constants in
// original_source/drbdmanage/server.py.
package config
