package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var hashSalt string

func init() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = "default-salt-change-in-production"
	}
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	data := fmt.Sprintf("%d:%s", chatID, hashSalt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeFilename keeps the extension and length of an uploaded filename.
// Bill filenames often carry customer names or invoice numbers.
func SanitizeFilename(name string) string {
	if name == "" {
		return "<empty>"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return fmt.Sprintf("<%d chars>", len(name))
	}
	return fmt.Sprintf("<%d chars>%s", len(name), ext)
}

// SanitizeText is a general-purpose sanitizer for any user-provided text,
// including raw model output that may echo bill contents.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	// For short text, show first few characters
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	// For longer text, show prefix and length
	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
