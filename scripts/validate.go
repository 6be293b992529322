package main

import (
	"flag"
	"log"

	"studiobook/internal/validation"
)

func main() {
	var baseURL, staffEmail, staffPassword string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.StringVar(&staffEmail, "staff-email", "staff@demo.studio", "Staff account email")
	flag.StringVar(&staffPassword, "staff-password", "staffpass123", "Staff account password")
	flag.Parse()

	log.Printf("Starting API validation against: %s", baseURL)

	validator := validation.NewAPIValidator(baseURL, staffEmail, staffPassword)
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	log.Println("Validation passed")
}
