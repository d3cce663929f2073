package vocab

type langMap struct {
	lang       string
	vocabulary Vocabulary
}

var vocabularies = []langMap{
	{
		lang:       "en",
		vocabulary: vocabularyEn,
	},
	{
		lang:       "fr",
		vocabulary: vocabularyFr,
	},
	{
		lang:       "de",
		vocabulary: vocabularyDe,
	},
	{
		lang:       "es",
		vocabulary: vocabularyEs,
	},
	{
		lang:       "pt",
		vocabulary: vocabularyPt,
	},
	{
		lang:       "it",
		vocabulary: vocabularyIt,
	},
	{
		lang:       "nl",
		vocabulary: vocabularyNl,
	},
}

var vocabularyEn = Vocabulary{
	Lang: "en",
	Follow: map[string]bool{
		"follow":         true,
		"+ follow":       true,
		"follow company": true,
	},
	FollowTokens: []string{"follow"},
	Following:    []string{"following", "unfollow"},
}

var vocabularyFr = Vocabulary{
	Lang: "fr",
	Follow: map[string]bool{
		"suivre":   true,
		"+ suivre": true,
	},
	FollowTokens: []string{"suivre"},
	Following:    []string{"suivi", "abonné", "ne plus suivre"},
}

var vocabularyDe = Vocabulary{
	Lang: "de",
	Follow: map[string]bool{
		"folgen":   true,
		"+ folgen": true,
	},
	FollowTokens: []string{"folgen"},
	Following:    []string{"gefolgt", "entfolgen", "folge ich"},
}

var vocabularyEs = Vocabulary{
	Lang: "es",
	Follow: map[string]bool{
		"seguir":   true,
		"+ seguir": true,
	},
	FollowTokens: []string{"seguir"},
	Following:    []string{"siguiendo", "dejar de seguir"},
}

var vocabularyPt = Vocabulary{
	Lang: "pt",
	Follow: map[string]bool{
		"seguir":   true,
		"+ seguir": true,
	},
	FollowTokens: []string{"seguir"},
	Following:    []string{"seguindo", "deixar de seguir"},
}

var vocabularyIt = Vocabulary{
	Lang: "it",
	Follow: map[string]bool{
		"segui":   true,
		"+ segui": true,
	},
	FollowTokens: []string{"segui"},
	Following:    []string{"segui già", "smetti di seguire"},
}

var vocabularyNl = Vocabulary{
	Lang: "nl",
	Follow: map[string]bool{
		"volgen":   true,
		"+ volgen": true,
	},
	FollowTokens: []string{"volgen"},
	Following:    []string{"volgend", "ontvolgen"},
}
