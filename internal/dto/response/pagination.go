package response

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
	Limit int `json:"limit"`
}

func NewListResponse[T any](data []T, limit int) *ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return &ListResponse[T]{
		Data:  data,
		Count: len(data),
		Limit: limit,
	}
}
