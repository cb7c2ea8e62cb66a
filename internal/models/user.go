package models

import "time"

// User is an account record in the key-value store, keyed by email.
type User struct {
	ID           string    `json:"id" dynamodbav:"id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"createdAt"`
}
