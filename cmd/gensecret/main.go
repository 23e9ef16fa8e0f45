package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// The codec requires at least 256 bits of key material
const SecretKeyBytesLen = 32

func main() {
	b := make([]byte, SecretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(base64.StdEncoding.EncodeToString(b))
}
