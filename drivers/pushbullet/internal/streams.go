package driver

import "github.com/reservoir-data/tap-pushbullet/types"

// v2 API resource paths; each page nests its records under a top level key
// named after the stream.
const (
	chatsPath         = "/v2/chats"
	devicesPath       = "/v2/devices"
	pushesPath        = "/v2/pushes"
	subscriptionsPath = "/v2/subscriptions"
	usersMePath       = "/v2/users/me"
)

// resource binds a stream declaration to its REST path and the query
// parameters pinned for every page of it.
type resource struct {
	path   string
	params map[string]string
	stream *types.Stream
}

// resources declares the synced streams. Declarations are rebuilt on every
// call so callers can decorate their schemas freely.
func resources() []resource {
	return []resource{
		{path: chatsPath, stream: chatsStream()},
		{path: devicesPath, stream: devicesStream()},
		// deleted pushes linger in the API; only active ones are wanted
		{path: pushesPath, params: map[string]string{"active": "true"}, stream: pushesStream()},
		{path: subscriptionsPath, stream: subscriptionsStream()},
	}
}

// baseStream carries the four fields every Pushbullet object shares, keyed
// and bookmarked the same way across all streams.
func baseStream(name string) *types.Stream {
	return types.NewStream(name).
		WithPrimaryKey("iden").
		WithCursorField("modified").
		AddProperty("iden", types.NewProperty("Unique identifier for this object", types.String)).
		AddProperty("active", types.NewProperty("`false` if the item has been deleted", types.Bool)).
		AddProperty("created", types.NewProperty("Creation time in floating point seconds (unix timestamp)", types.Float64)).
		AddProperty("modified", types.NewProperty("Last modified time in floating point seconds (unix timestamp)", types.Float64))
}

func emailProperty() *types.Property {
	return types.NewProperty("Email address of the person", types.String)
}

func normalizedEmailProperty() *types.Property {
	return types.NewProperty("Canonical email address of the person", types.String)
}

func chatsStream() *types.Stream {
	return baseStream("chats").
		AddProperty("muted", types.NewProperty("If `true`, notifications from this chat will not be shown", types.Bool)).
		AddProperty("with", types.NewProperty("The user or email that the chat is with", types.Object).
			WithProperties(map[string]*types.Property{
				"email":            emailProperty(),
				"email_normalized": normalizedEmailProperty(),
				"iden":             types.NewProperty("If this is a user, the iden of that user", types.String),
				"image_url":        types.NewProperty("Image to display for the person", types.String),
				"type":             types.NewProperty("`\"email\"` or `\"user\"`", types.String).WithEnum("email", "user"),
				"name":             types.NewProperty("Name of the person", types.String),
			}))
}

func devicesStream() *types.Stream {
	return baseStream("devices").
		AddProperty("icon", types.NewProperty("Icon to use for this device, can be an arbitrary string. Commonly used values are: \"desktop\", \"browser\", \"website\", \"laptop\", \"tablet\", \"phone\", \"watch\", \"system\"", types.String)).
		AddProperty("nickname", types.NewProperty("Name to use when displaying the device", types.String)).
		AddProperty("generated_nickname", types.NewProperty("`true` if the nickname was automatically generated from the `manufacturer` and `model` fields (only used for some android phones)", types.Bool)).
		AddProperty("manufacturer", types.NewProperty("Manufacturer of the device", types.String)).
		AddProperty("model", types.NewProperty("Model of the device", types.String)).
		AddProperty("app_version", types.NewProperty("Version of the Pushbullet application installed on the device", types.Int64)).
		AddProperty("fingerprint", types.NewProperty("String fingerprint for the device, used by apps to avoid duplicate devices. Value is platform-specific.", types.String)).
		AddProperty("key_fingerprint", types.NewProperty("Fingerprint for the device's end-to-end encryption key, used to determine which devices the current device (based on its own key fingerprint) will be able to talk to.", types.String)).
		AddProperty("push_token", types.NewProperty("Platform-specific push token. If you are making your own device, leave this blank and you can listen for events on the Realtime Event Stream.", types.String)).
		AddProperty("has_sms", types.NewProperty("`true` if the devices has SMS capability, currently only true for `type=\"android\"` devices", types.Bool))
}

func pushesStream() *types.Stream {
	return baseStream("pushes").
		AddProperty("type", types.NewProperty("Type of the push, one of `\"note\"`, `\"file\"`, `\"link\"`.", types.String).WithEnum("note", "file", "link")).
		AddProperty("dismissed", types.NewProperty("Whether the push has been dismissed", types.Bool)).
		AddProperty("guid", types.NewProperty("Unique identifier set by the client, used to identify a push in case you receive it from /v2/everything before the call to /v2/pushes has completed. This should be a unique value. Pushes with guid set are mostly idempotent, meaning that sending another push with the same guid is unlikely to create another push (it will return the previously created push).", types.String)).
		AddProperty("direction", types.NewProperty("Direction the push was sent in, can be `\"self\"`, `\"outgoing\"`, or `\"incoming\"`", types.String).WithEnum("self", "outgoing", "incoming")).
		AddProperty("sender_iden", types.NewProperty("The push's sender's ID", types.String)).
		AddProperty("sender_email", emailProperty()).
		AddProperty("sender_email_normalized", normalizedEmailProperty()).
		AddProperty("sender_name", types.NewProperty("Name of the sender", types.String)).
		AddProperty("receiver_iden", types.NewProperty("The push's receiver's ID", types.String)).
		AddProperty("receiver_email", emailProperty()).
		AddProperty("receiver_email_normalized", normalizedEmailProperty()).
		AddProperty("target_device_iden", types.NewProperty("Device iden of the target device, if sending to a single device", types.String)).
		AddProperty("source_device_iden", types.NewProperty("Device iden of the sending device. Optionally set by the sender when creating a push", types.String)).
		AddProperty("client_iden", types.NewProperty("If the push was created by a client, set to the iden of that client.", types.String)).
		AddProperty("channel_iden", types.NewProperty("If the push was created by a channel, set to the iden of that channel", types.String)).
		AddProperty("awake_app_guids", types.NewProperty("List of guids (client side identifiers, not the guid field on pushes) for awake apps at the time the push was sent. If the length of this list is > 0, dismissed will be set to true and the awake app(s) must decide what to do with the notification", types.Array).
			WithItems(&types.Property{Type: types.NewSet(types.String)})).
		AddProperty("title", types.NewProperty("Title of the push, used for all types of pushes", types.String)).
		AddProperty("body", types.NewProperty("Body of the push, used for all types of pushes", types.String)).
		AddProperty("url", types.NewProperty("URL field, used for `type=\"link\"` pushes", types.String)).
		AddProperty("file_name", types.NewProperty("File name, used for `type=\"file\"` pushes", types.String)).
		AddProperty("file_type", types.NewProperty("File mime type, used for `type=\"file\"` pushes", types.String)).
		AddProperty("file_url", types.NewProperty("File download url, used for `type=\"file\"` pushes", types.String)).
		AddProperty("image_url", types.NewProperty("URL to an image to use for this push, present on `type=\"file\"` pushes if file_type matches image/*", types.String)).
		AddProperty("image_width", types.NewProperty("Width of image in pixels, only present if `image_url` is set", types.Int64)).
		AddProperty("image_height", types.NewProperty("Height of image in pixels, only present if `image_url` is set", types.Int64))
}

func subscriptionsStream() *types.Stream {
	return baseStream("subscriptions").
		AddProperty("muted", types.NewProperty("If `true`, notifications from this subscription will not be shown", types.Bool)).
		AddProperty("channel", types.NewProperty("Information about the channel that is being subscribed to", types.Object).
			WithProperties(map[string]*types.Property{
				"iden":        types.NewProperty("Unique identifier for the channel", types.String),
				"tag":         types.NewProperty("Unique tag for this channel", types.String),
				"name":        types.NewProperty("Name of the channel", types.String),
				"description": types.NewProperty("Description of the channel", types.String),
				"image_url":   types.NewProperty("Image for the channel", types.String),
				"website_url": types.NewProperty("Link to a website for the channel", types.String),
			}))
}
