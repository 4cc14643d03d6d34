package jenkins

// Raw JSON shapes returned by the Jenkins remote access API. Causes stay
// loosely typed: their keys are contributed by plugins and vary between
// installations, so classification happens downstream on raw maps.

type rootResponse struct {
	Views []viewResponse `json:"views"`
	Jobs  []jobResponse  `json:"jobs"`
}

type viewResponse struct {
	Name string        `json:"name"`
	URL  string        `json:"url"`
	Jobs []jobResponse `json:"jobs"`
}

type jobResponse struct {
	Class    string `json:"_class"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	URL      string `json:"url"`
}

type buildListResponse struct {
	Builds []buildResponse `json:"builds"`
}

type buildResponse struct {
	Number    int              `json:"number"`
	Timestamp int64            `json:"timestamp"`
	Duration  int64            `json:"duration"`
	Result    string           `json:"result"`
	URL       string           `json:"url"`
	Actions   []actionResponse `json:"actions"`
}

type actionResponse struct {
	Class  string                   `json:"_class"`
	Causes []map[string]interface{} `json:"causes"`
}
