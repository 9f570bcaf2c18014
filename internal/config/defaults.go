package config

const (
	BackendGitHub = "github"
	BackendPublic = "public"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

const (
	defaultStateDir         = "~/.local/share/discshelf"
	defaultLogDir           = "~/.local/share/discshelf/logs"
	defaultTMDBLanguage     = "en-US"
	defaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL = "https://image.tmdb.org/t/p/w342"
	defaultOpenDBBaseURL    = "https://raw.githubusercontent.com/Solfood/bluray/main/data"
	defaultOpenDBTimeoutMS  = 9000
	defaultUPCProxyURL      = "https://api.allorigins.win/raw?url="
	defaultUPCLookupURL     = "https://api.upcitemdb.com/prod/trial/lookup?upc="
	defaultGitHubAPIURL     = "https://api.github.com"
	defaultGitHubRepo       = "bluray"
	defaultGitHubPath       = "movies.json"
	defaultGitHubBranch     = "main"
	defaultPublicURL        = "https://raw.githubusercontent.com/Solfood/bluray/main/movies.json"
	defaultSQLiteFile       = "collection.db"
	defaultDocumentFile     = "movies.json"
	defaultStoreMaxRetries  = 3
	defaultStoreRetryPause  = 1000
	defaultFetchTimeoutMS   = 7000
	defaultFetchBulkTimeout = 9000
	defaultFetchRetries     = 2
	defaultFetchBackoffMS   = 500
	defaultAutoAcceptScore  = 120
	defaultMinLead          = 25
	defaultMaxChoices       = 8
	defaultTitleIndexScore  = 50
	defaultAPIBind          = "127.0.0.1:7488"
	defaultSubjectPrefix    = "discshelf"
	defaultDetailsSearchURL = "https://www.blu-ray.com/search/?quicksearch=1&section=bluraymovies&quicksearch_keyword="
	defaultRequestDelayMS   = 2000
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:      defaultTMDBBaseURL,
			Language:     defaultTMDBLanguage,
			ImageBaseURL: defaultTMDBImageBaseURL,
		},
		OpenDB: OpenDB{
			BaseURL:      defaultOpenDBBaseURL,
			IndexTimeout: defaultOpenDBTimeoutMS,
		},
		UPCLookup: UPCLookup{
			Enabled:   true,
			ProxyURL:  defaultUPCProxyURL,
			LookupURL: defaultUPCLookupURL,
		},
		Store: Store{
			Backend:      BackendGitHub,
			PublicURL:    defaultPublicURL,
			MaxRetries:   defaultStoreMaxRetries,
			RetryPauseMS: defaultStoreRetryPause,
			GitHub: GitHubStore{
				Repo:   defaultGitHubRepo,
				Path:   defaultGitHubPath,
				Branch: defaultGitHubBranch,
				APIURL: defaultGitHubAPIURL,
			},
		},
		Fetch: Fetch{
			TimeoutMS:     defaultFetchTimeoutMS,
			BulkTimeoutMS: defaultFetchBulkTimeout,
			Retries:       defaultFetchRetries,
			BackoffMS:     defaultFetchBackoffMS,
		},
		Matching: Matching{
			AutoAcceptScore: defaultAutoAcceptScore,
			MinLead:         defaultMinLead,
			MaxChoices:      defaultMaxChoices,
			TitleIndexScore: defaultTitleIndexScore,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Events: Events{
			SubjectPrefix: defaultSubjectPrefix,
		},
		Enrichment: Enrichment{
			DetailsSearchURL: defaultDetailsSearchURL,
			RequestDelayMS:   defaultRequestDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
