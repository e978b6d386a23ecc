package web

import "embed"

// StaticFS embeds the static front-end (html/css/js).
//
//go:embed static/*
var StaticFS embed.FS
