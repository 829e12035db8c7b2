package main

import (
	"log"

	"yashubustudio/agreement/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("agreement: %v", err)
	}
}
