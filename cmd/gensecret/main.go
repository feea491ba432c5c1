// Print random key suitable for SECRET_KEY or TEST_SECRET
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytesLen = 32

func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	length := fs.IntP("bytes", "n", defaultKeyBytesLen, "Random bytes in the key")
	encoding := fs.StringP("encoding", "e", "hex", "Output encoding (hex, base64)")
	_ = fs.Parse(os.Args[1:])

	if *length < 16 {
		fmt.Fprintln(os.Stderr, "key shorter than 16 bytes is not secure")
		os.Exit(2)
	}

	b := make([]byte, *length)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	switch *encoding {
	case "hex":
		fmt.Println(hex.EncodeToString(b))
	case "base64":
		fmt.Println(base64.RawURLEncoding.EncodeToString(b))
	default:
		fmt.Fprintf(os.Stderr, "unknown encoding %q\n", *encoding)
		os.Exit(2)
	}
}
