// Package appfs embeds the files the binaries need at runtime:
// database migrations, email templates and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql assets/common-passwords.txt.gz assets/templates/email/*
var FS embed.FS
