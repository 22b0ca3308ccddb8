// Package knowledge implements the owner-scoped knowledge base: content is
// embedded on ingestion and retrieved later by vector similarity.
//
// The Store pairs an ai.Embedder with a Querier over the knowledge_base
// table. Every row records the model that embedded it, and retrieval filters
// on the active model so vectors from different models never mix.
package knowledge
