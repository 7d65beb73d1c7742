package auth

import "context"

// SetClaimsForTest injects a seat into the context for testing purposes.
func SetClaimsForTest(ctx context.Context, gameID, power string) context.Context {
	return context.WithValue(ctx, claimsKey, &Claims{GameID: gameID, Power: power})
}
