package domain

import "encoding/json"

// Item — объект на холсте. Ядро не интерпретирует содержимое: документ
// хранится и пересылается как есть, снаружи виден только id.
type Item struct {
	ID  string
	Doc json.RawMessage // полный JSON-объект, включая "id"
}

// NewItem оборачивает сырой документ, вытащив из него id.
func NewItem(doc json.RawMessage) (Item, error) {
	var it Item
	if err := it.UnmarshalJSON(doc); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (i *Item) UnmarshalJSON(b []byte) error {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	i.ID = head.ID
	i.Doc = append([]byte(nil), b...)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.Doc) == 0 {
		return []byte("null"), nil
	}
	return i.Doc, nil
}
