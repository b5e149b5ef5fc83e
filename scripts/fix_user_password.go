//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/geijin5/apsar-emergency-api/identity"
)

// Quick utility to reset a member's password by hand
// Usage: go run scripts/fix_user_password.go <email> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/fix_user_password.go <email> <password>")
		os.Exit(1)
	}

	email, password := os.Args[1], os.Args[2]
	hash, err := identity.HashPassword(password)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", hash)
	fmt.Printf("\nTo update in MongoDB, run:\n")
	fmt.Printf("db.users.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"passwordHash\": %q, \"isActive\": true}}\n", hash)
	fmt.Printf(")\n")
}
