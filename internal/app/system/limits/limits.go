// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps ordinary JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxTeamBody caps team create/update bodies, which may carry a
	// base64 picture.
	MaxTeamBody = 8 << 20 // 8 MB

	// MaxCommentLength is the longest accepted comment body, in bytes.
	MaxCommentLength = 10_000
)
