// Package media stores uploaded song assets and serves them back.
//
// [Uploads] accepts audio and cover image payloads, checks their sniffed content type,
// writes them under the upload directory with generated names and returns locators of
// the form /uploads/<file>. The same type serves those files with extension-derived
// content types and byte-range support.
package media
