// Package captcha generates challenge prompts and answers. Math challenges
// are small arithmetic questions whose result is never negative; text and
// image challenges are short random strings drawn from an alphabet without
// visually ambiguous characters. Rendering a string into a distorted bitmap
// is a presentation concern handled by the caller's Renderer; only the
// plaintext answer participates in verification.
package captcha
