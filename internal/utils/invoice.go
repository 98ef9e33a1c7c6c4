package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// GenerateInvoiceNumber generates an invoice number with the specified prefix and length
func GenerateInvoiceNumber(prefix string, length int) (string, error) {
	if length <= len(prefix) || length > 24 {
		return "", fmt.Errorf("invalid invoice number length: %d", length)
	}

	// Generate random digits
	digits := make([]byte, length-len(prefix))
	_, err := rand.Read(digits)
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	// Convert to string and ensure valid digits
	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		digit := b%10 + '0' // Convert to ASCII digit
		builder.WriteByte(digit)
	}

	number := builder.String()

	// Ensure length is exact
	if len(number) != length {
		return "", fmt.Errorf("generated invoice number has incorrect length: got %d, want %d", len(number), length)
	}

	return number, nil
}
