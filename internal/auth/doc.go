// Package auth implements the gateway's credential checks.
//
// Two schemes exist:
//
//   - Bearer JWT: an HS256 token whose subject is the username, issued by
//     POST /auth/token and valid for a fixed window (30 minutes by default).
//   - Static secret: one shared value for machine callers, sent either as
//     "Authorization: Bearer <secret>" or in the X-API-KEY header.
//
// Core routes (/llm/chat, /tts, /stt, /voices) accept either scheme through
// Gate.RequireJWTOrSecret. The OpenAI-compatible routes accept only the
// static secret through Gate.RequireSecret; a JWT presented there is
// rejected unless its value happens to equal the secret. That asymmetry is
// kept on purpose until someone decides whether it should be unified.
package auth
