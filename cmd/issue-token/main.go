// issue-token mints a development JWT so the API can be exercised without
// the external identity provider.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/service"
)

func main() {
	var (
		userID = flag.String("user", "", "user identifier to embed in the token")
		role   = flag.String("role", "student", "role: teacher or student")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id> [-role teacher|student]")
		os.Exit(2)
	}

	cfg := config.Load()
	auth := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)

	token, err := auth.GenerateToken(*userID, model.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
