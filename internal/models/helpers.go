package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateGameID(kind string) string {
	return fmt.Sprintf("%s_%s", kind, uuid.NewString())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateConnectionID() string {
	return "conn_" + uuid.NewString()
}
