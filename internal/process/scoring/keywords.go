package scoring

// Fixed vocabularies that help determine the context and intent of a post.

// defaultIntentKeywords are canonical phrases expressing purchase or
// comparison intent.
var defaultIntentKeywords = []string{
	"recommend", "recommendation", "advice", "help", "suggest", "suggestion",
	"looking for", "alternative", "best", "top", "how to", "choose", "choosing",
	"compare", "vs", "versus", "which is better", "what is the best",
}

// defaultPainPointKeywords are problem and frustration vocabulary.
var defaultPainPointKeywords = []string{
	"problem", "issue", "struggling", "frustrated", "hate", "annoying",
	"bug", "error", "slow", "difficult", "hard to use",
}

// defaultNegativeKeywords signal off-target content such as hiring posts,
// tutorials, and giveaways.
var defaultNegativeKeywords = []string{
	"hiring", "job", "for hire", "tutorial", "guide", "news", "article",
	"giveaway", "freebie", "course", "learn",
}
