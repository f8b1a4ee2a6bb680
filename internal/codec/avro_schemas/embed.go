package avroschemas

import _ "embed"

// ItemOrdered holds the embedded Avro schema for item ordered events.
//
//go:embed item_ordered.avsc
var ItemOrdered []byte
