// Package blobsource provides dataset.Source implementations: a local
// directory (development and tests), an HTTP blob service with an
// optional websocket invalidation feed (the `glint serve` counterpart),
// and an S3 bucket.
package blobsource
