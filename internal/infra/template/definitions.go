package template

// Documented defaults for optional fields.
const (
	defaultFirstName    = "User"
	defaultCompanyName  = "Your Company"
	defaultSupportEmail = "support@company.com"
	defaultExpiresIn    = "24 hours"
	defaultURL          = "#"

	logoImageURL        = "https://via.placeholder.com/150x50/4F46E5/white?text=LOGO"
	articleImageURL     = "https://via.placeholder.com/400x200/E5E7EB/6B7280?text=Article+Image"
	successStoryImage   = "https://via.placeholder.com/400x200/E5E7EB/6B7280?text=Success+Story"
)

// welcomeData feeds the welcome template pair.
type welcomeData struct {
	FirstName    string
	CompanyName  string
	LoginURL     string
	SupportEmail string
	LogoURL      string
	Year         int
}

// confirmationData feeds the confirmation template pair.
type confirmationData struct {
	FirstName   string
	CompanyName string
	ConfirmURL  string
	ExpiresIn   string
	LogoURL     string
	Year        int
}

// Article is one newsletter entry.
type Article struct {
	Title       string
	Summary     string
	ReadMoreURL string
	ImageURL    string
}

// newsletterData feeds the newsletter template pair.
type newsletterData struct {
	FirstName      string
	CompanyName    string
	Articles       []Article
	UnsubscribeURL string
	WebViewURL     string
	LogoURL        string
	Year           int
}

// newDefinitions returns the builtin template set in catalog order.
func newDefinitions() []*definition {
	return []*definition{
		{
			name:           "welcome",
			description:    "Welcome email for new users with onboarding information",
			requiredFields: []string{"firstName", "loginUrl"},
			buildData: func(props map[string]any) any {
				return welcomeData{
					FirstName:    stringProp(props, "firstName", defaultFirstName),
					CompanyName:  stringProp(props, "companyName", defaultCompanyName),
					LoginURL:     stringProp(props, "loginUrl", defaultURL),
					SupportEmail: stringProp(props, "supportEmail", defaultSupportEmail),
					LogoURL:      logoImageURL,
					Year:         copyrightYear(),
				}
			},
		},
		{
			name:           "confirmation",
			description:    "Email confirmation template with action button",
			requiredFields: []string{"firstName", "confirmUrl"},
			buildData: func(props map[string]any) any {
				return confirmationData{
					FirstName:   stringProp(props, "firstName", defaultFirstName),
					CompanyName: stringProp(props, "companyName", defaultCompanyName),
					ConfirmURL:  stringProp(props, "confirmUrl", defaultURL),
					ExpiresIn:   stringProp(props, "expiresIn", defaultExpiresIn),
					LogoURL:     logoImageURL,
					Year:        copyrightYear(),
				}
			},
		},
		{
			name:           "newsletter",
			description:    "Newsletter template with articles and call-to-action",
			requiredFields: []string{"firstName"},
			checkShape: func(props map[string]any) []string {
				if v, ok := props["articles"]; ok && v != nil && !isSequence(v) {
					return []string{"articles must be an array"}
				}
				return nil
			},
			buildData: func(props map[string]any) any {
				return newsletterData{
					FirstName:      stringProp(props, "firstName", defaultFirstName),
					CompanyName:    stringProp(props, "companyName", defaultCompanyName),
					Articles:       parseArticles(props["articles"]),
					UnsubscribeURL: stringProp(props, "unsubscribeUrl", defaultURL),
					WebViewURL:     stringProp(props, "webViewUrl", defaultURL),
					LogoURL:        logoImageURL,
					Year:           copyrightYear(),
				}
			},
		},
	}
}

// stringProp reads a string property, falling back when it is absent,
// empty, or not a string.
func stringProp(props map[string]any, key, fallback string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// defaultArticles keeps the newsletter visually complete when the
// caller supplies no articles.
func defaultArticles() []Article {
	return []Article{
		{
			Title:       "New Feature Release: Enhanced Dashboard",
			Summary:     "We've redesigned our dashboard to make it more intuitive and powerful.",
			ReadMoreURL: defaultURL,
			ImageURL:    articleImageURL,
		},
		{
			Title:       "Customer Success Story",
			Summary:     "See how Company X increased their productivity by 40% using our platform.",
			ReadMoreURL: defaultURL,
			ImageURL:    successStoryImage,
		},
	}
}

// parseArticles converts a decoded articles value into typed entries.
// Anything that is not a non-empty sequence yields the defaults; shape
// validation has already rejected non-sequences before rendering.
func parseArticles(v any) []Article {
	if v == nil || !isSequence(v) {
		return defaultArticles()
	}

	items, ok := toSlice(v)
	if !ok || len(items) == 0 {
		return defaultArticles()
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		switch entry := item.(type) {
		case Article:
			articles = append(articles, entry)
		case map[string]any:
			articles = append(articles, Article{
				Title:       stringProp(entry, "title", ""),
				Summary:     stringProp(entry, "summary", ""),
				ReadMoreURL: stringProp(entry, "readMoreUrl", defaultURL),
				ImageURL:    stringProp(entry, "imageUrl", articleImageURL),
			})
		}
	}

	if len(articles) == 0 {
		return defaultArticles()
	}
	return articles
}

// toSlice normalizes the common decoded sequence shapes to []any.
func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		items := make([]any, len(s))
		for i, m := range s {
			items[i] = m
		}
		return items, true
	case []Article:
		items := make([]any, len(s))
		for i, a := range s {
			items[i] = a
		}
		return items, true
	default:
		return nil, false
	}
}
