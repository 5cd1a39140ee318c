// Package loader reads files into agent context documents, converting HTML
// pages to markdown so models see the text rather than the markup.
package loader
