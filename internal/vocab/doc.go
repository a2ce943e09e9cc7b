// Package vocab loads the token id to token string table used for CTC
// decoding and defines the blank id convention.
package vocab
