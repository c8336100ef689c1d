// Package fakeapi runs an in-process API server for integration tests.
//
// The server issues bearer tokens, rejects expired ones with the same error
// document the real API returns and serves a small transfers resource:
//
//	srv := fakeapi.New()
//	defer srv.Close()
//
//	token := srv.IssueToken()
//	// ... call srv.URL() with "Authorization: Bearer " + token
//	srv.ExpireTokens() // next call answers 401
//
// Every response carries an X-Request-Id header, echoed back as requestId in
// error documents.
package fakeapi
