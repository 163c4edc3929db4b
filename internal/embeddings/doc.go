// Package embeddings provides embedding generation via multiple providers.
//
// Supports OpenAI and Google AI providers through langchaingo, selected once
// at startup via configuration. The Cached decorator consults the
// content-addressed embedding cache before every provider call and groups
// cache misses into provider-native batch requests.
package embeddings
