package db

// CategoryFixtures provides sample category data for seeding dev stores.
var CategoryFixtures = []map[string]interface{}{
	{"category_name": "Cardiology"},
	{"category_name": "Pediatrics"},
	{"category_name": "Neurology"},
}

// PostFixtures provides sample post data for seeding dev stores. The last
// entry is pending moderation (flag false) so the admin queue has content.
var PostFixtures = []map[string]interface{}{
	{
		"screen_name":    "drexample",
		"tweet_id":       "1775000000000000001",
		"rest_id":        "1775000000000000001",
		"tweet_text":     "A practical mnemonic for reading chest films quickly.",
		"created_at":     "2nd April 2024",
		"retweet_count":  12,
		"favorite_count": 240,
		"reply_count":    8,
		"tweet_url":      "https://twitter.com/drexample/status/1775000000000000001",
		"category":       "Cardiology",
	},
	{
		"screen_name":    "peds_rounds",
		"tweet_id":       "1775000000000000002",
		"rest_id":        "1775000000000000002",
		"tweet_text":     "Fever workup thresholds by age, one thread.",
		"created_at":     "4th April 2024",
		"retweet_count":  30,
		"favorite_count": 910,
		"reply_count":    41,
		"tweet_url":      "https://twitter.com/peds_rounds/status/1775000000000000002",
		"category":       "Pediatrics",
	},
	{
		"screen_name":        "neuro_case",
		"tweet_id":           "1775000000000000003",
		"rest_id":            "1775000000000000003",
		"tweet_text":         "Unusual presentation worth a second look.",
		"created_at":         "2024-04-05T09:30:00Z",
		"retweet_count":      2,
		"favorite_count":     35,
		"reply_count":        5,
		"tweet_url":          "https://twitter.com/neuro_case/status/1775000000000000003",
		"category":           "Neurology",
		"tagging_confidence": 0.42,
		"flag":               false,
	},
}
