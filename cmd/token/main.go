// Command token prints a signed bearer token for local use.
//
//	JWT_SECRET=dev go run ./cmd/token -sub admin-1 -email admin@example.test
//
// The subject still needs a profile in the users collection (PUT
// /api/users/{id}, or a seeded store) before the API accepts the token.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alexisbanda/operations-management-system/auth"
	"github.com/alexisbanda/operations-management-system/config"
)

func main() {
	subject := flag.String("sub", "", "identity subject (required)")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (default TOKEN_TTL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, lifetime)
	if err != nil {
		fail(err)
	}
	token, err := issuer.Issue(*subject, *email)
	if err != nil {
		fail(err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "token:", err)
	os.Exit(1)
}
