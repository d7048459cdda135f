package odloader

type Kind string

const (
	FILE   Kind = "file"
	FOLDER Kind = "folder"
)

// item is the wire shape of a single driveItem. Required keys are pointers so
// that an absent key can be told apart from a zero value.
type item struct {
	Name   *string `json:"name"`
	Size   *int64  `json:"size"`
	WebURL *string `json:"webUrl"`
	Folder *folder `json:"folder"`
	File   *file   `json:"file"`
}

type folder struct {
	ChildCount int `json:"childCount"`
}

type file struct {
	MimeType string            `json:"mimeType"`
	Hashes   map[string]string `json:"hashes"`
}

type children struct {
	Value    *[]item `json:"value"`
	NextLink string  `json:"@odata.nextLink"`
}

// ItemMetadata is one decoded item of the shares API.
type ItemMetadata struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	WebURL     string `json:"webUrl"`
	ChildCount int    `json:"childCount,omitempty"`
}

// TreeNode mirrors one remote item. Files never have children.
type TreeNode struct {
	Kind     Kind       `json:"kind"`
	Name     string     `json:"name"`
	Size     int64      `json:"size"`
	Link     string     `json:"link"`
	Children []TreeNode `json:"children,omitempty"`
}

func (n TreeNode) IsFolder() bool {
	return n.Kind == FOLDER
}
