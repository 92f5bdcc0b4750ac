package twitter

const (
	NoBio    = "No bio available"
	NoTweets = "N/A"
)

// Profile is the snapshot of a public account handed to the prompt template.
// Absent upstream fields are replaced with neutral defaults.
type Profile struct {
	Name              string `json:"name"`
	Username          string `json:"username"`
	Bio               string `json:"bio"`
	Followers         int    `json:"followers"`
	Following         int    `json:"following"`
	TweetCount        int    `json:"tweetCount"`
	MostRecentTweetID string `json:"mostRecentTweetId"`
	PinnedTweetID     string `json:"pinnedTweetId"`
}

type lookupResponse struct {
	Data *apiUser `json:"data"`
}

type apiUser struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Username          string         `json:"username"`
	Description       string         `json:"description"`
	PublicMetrics     *publicMetrics `json:"public_metrics"`
	MostRecentTweetID string         `json:"most_recent_tweet_id"`
	PinnedTweetID     string         `json:"pinned_tweet_id"`
}

type publicMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
}

func (u *apiUser) profile() *Profile {
	p := &Profile{
		Name:              u.Name,
		Username:          u.Username,
		Bio:               orDefault(u.Description, NoBio),
		MostRecentTweetID: orDefault(u.MostRecentTweetID, NoTweets),
		PinnedTweetID:     orDefault(u.PinnedTweetID, NoTweets),
	}
	if m := u.PublicMetrics; m != nil {
		p.Followers = m.FollowersCount
		p.Following = m.FollowingCount
		p.TweetCount = m.TweetCount
	}
	return p
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
