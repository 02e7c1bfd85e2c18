package utils

import (
	"crypto/md5"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak ETag from an entity id and its last update.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time) string {
	sum := md5.Sum([]byte(id.Hex() + updatedAt.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf(`"%x"`, sum)
}
