package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"example.com/storefront-checkout/app/internal/infra/security"
	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
)

// Mints a shopper token for poking the checkout API locally.
func main() {
	userID := flag.String("user", "", "user id placed in the token subject")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *userID == "" {
		log.Fatal("JWT_SECRET and -user are required")
	}

	token, err := security.NewJWTService(secret, *ttl).GenerateToken(authuc.Claims{UserID: *userID, Email: *email})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
