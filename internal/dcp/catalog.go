package dcp

import "github.com/danmuck/dcpctl/internal/protocol/schema"

var (
	storageText = map[int64]string{1: "local", 2: "remote", 3: "local+remote"}

	contentKindText = map[int64]string{
		0:   "Unknown",
		1:   "Feature",
		2:   "Trailer",
		3:   "Test",
		4:   "Teaser",
		5:   "Rating",
		6:   "Advertisement",
		7:   "Short",
		8:   "Transitional",
		9:   "PSA",
		10:  "Policy",
		128: "Live CPL",
	}

	encodingText   = map[int64]string{0: "Unknown", 1: "MPEG2", 2: "JPEG2000", 3: "Audio PCM"}
	encryptionText = map[int64]string{0: "No Encryption", 1: "AES 128 CBC"}
)

var requestMessages = []schema.Message{
	{Name: "GetCPLList", Key: schema.MustKey("010100")},
	{Name: "GetSPLList", Key: schema.MustKey("030100")},
	{Name: "GetCPLInfo", Key: schema.MustKey("010300"), Fields: []schema.Field{
		{Name: "uuid", Codec: schema.UUID},
	}},
}

// uuidListResponse is the layout shared by the CPL and SPL list responses.
func uuidListResponse(name, key string) schema.Message {
	return schema.Message{Name: name, Key: schema.MustKey(key), Fields: []schema.Field{
		{Name: "amount", Start: 0, End: 4, Codec: schema.Uint(4)},
		{Name: "item_length", Start: 4, End: 8, Codec: schema.Uint(4)},
		{Name: "list", Start: 0, End: -1, Codec: schema.UUIDList},
		{Name: "response", Start: -1, End: schema.ToEnd, Codec: schema.Uint(1)},
	}}
}

var responseMessages = []schema.Message{
	uuidListResponse("GetCPLList", "010200"),
	uuidListResponse("GetSPLList", "030200"),
	{Name: "GetCPLInfo", Key: schema.MustKey("010400"), Fields: []schema.Field{
		{Name: "cpl_uuid", Start: 0, End: 16, Codec: schema.UUID},
		{Name: "storage", Start: 16, End: 17, Codec: schema.Uint(1), Text: storageText},
		{Name: "content_title_text", Start: 17, End: 145, Codec: schema.Text(128)},
		{Name: "content_kind", Start: 145, End: 146, Codec: schema.Uint(1), Text: contentKindText},
		{Name: "duration", Start: 146, End: 150, Codec: schema.Uint(4)},
		{Name: "edit_rate_a", Start: 150, End: 154, Codec: schema.Uint(4)},
		{Name: "edit_rate_b", Start: 154, End: 158, Codec: schema.Uint(4)},
		{Name: "picture_encoding", Start: 158, End: 159, Codec: schema.Uint(1), Text: encodingText},
		{Name: "picture_width", Start: 159, End: 161, Codec: schema.Uint(2)},
		{Name: "picture_height", Start: 161, End: 163, Codec: schema.Uint(2)},
		{Name: "picture_encryption", Start: 163, End: 164, Codec: schema.Uint(1), Text: encryptionText},
		{Name: "sound_encoding", Start: 164, End: 165, Codec: schema.Uint(1), Text: encodingText},
		{Name: "sound_channel_count", Start: 165, End: 166, Codec: schema.Uint(1)},
		{Name: "sound_quantization_bits", Start: 166, End: 167, Codec: schema.Uint(1)},
		{Name: "sound_encryption", Start: 167, End: 168, Codec: schema.Uint(1), Text: encryptionText},
		{Name: "crypto_key_id_list", Start: 176, End: -1, Codec: schema.UUIDList},
		{Name: "response", Start: -1, End: schema.ToEnd, Codec: schema.Uint(1)},
	}},
}

var (
	requests  = schema.MustCatalog("request", requestMessages...)
	responses = schema.MustCatalog("response", responseMessages...)
)

// Requests is the catalog of commands a client can send.
func Requests() *schema.Catalog {
	return requests
}

// Responses is the catalog of messages a device answers with.
func Responses() *schema.Catalog {
	return responses
}
