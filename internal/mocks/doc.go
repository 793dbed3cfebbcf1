// Package mocks provides shared mock implementations of service interfaces
// for HTTP-level tests.
//
// Each mock has one function field per interface method. When a field is nil
// the mock returns its default values:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return nil, auth.ErrExpiredToken
//	    },
//	}
package mocks
