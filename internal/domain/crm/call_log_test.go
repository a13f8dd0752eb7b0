package crm

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCall(t *testing.T) *CallLog {
	t.Helper()
	call, err := NewCallLog(uuid.New(), "+995555123456", "+995555654321", DirectionInbound, CallTypeVoice)
	require.NoError(t, err)
	return call
}

func TestNewCallLog(t *testing.T) {
	t.Run("opens in initiated state", func(t *testing.T) {
		call := newTestCall(t)
		assert.Equal(t, CallStatusInitiated, call.Status)
		assert.Equal(t, "+995555123456", call.CallerNumber)
		assert.False(t, call.Status.IsTerminal())
		assert.Len(t, call.GetDomainEvents(), 1)
	})

	t.Run("defaults to voice call type", func(t *testing.T) {
		call, err := NewCallLog(uuid.New(), "+995555123456", "+995555654321", DirectionOutbound, "")
		require.NoError(t, err)
		assert.Equal(t, CallTypeVoice, call.CallType)
	})

	t.Run("normalizes formatted numbers", func(t *testing.T) {
		call, err := NewCallLog(uuid.New(), "+995 555 123-456", "(995) 555654321", DirectionInbound, CallTypeVoice)
		require.NoError(t, err)
		assert.Equal(t, "+995555123456", call.CallerNumber)
		assert.Equal(t, "995555654321", call.RecipientNumber)
	})

	t.Run("withheld caller ID becomes anonymous", func(t *testing.T) {
		call, err := NewCallLog(uuid.New(), "", "+995555654321", DirectionInbound, CallTypeVoice)
		require.NoError(t, err)
		assert.Equal(t, "anonymous", call.CallerNumber)
	})

	t.Run("rejects garbage numbers and bad enums", func(t *testing.T) {
		_, err := NewCallLog(uuid.New(), "not-a-number", "+995555654321", DirectionInbound, CallTypeVoice)
		assert.Error(t, err)
		_, err = NewCallLog(uuid.New(), "+995555123456", "+995555654321", "sideways", CallTypeVoice)
		assert.Error(t, err)
		_, err = NewCallLog(uuid.New(), "+995555123456", "+995555654321", DirectionInbound, "fax")
		assert.Error(t, err)
		_, err = NewCallLog(uuid.Nil, "+995555123456", "+995555654321", DirectionInbound, CallTypeVoice)
		assert.Error(t, err)
	})
}

func TestCallLifecycle(t *testing.T) {
	agentID := uuid.New()

	t.Run("full answered call", func(t *testing.T) {
		call := newTestCall(t)

		require.NoError(t, call.Ring())
		assert.Equal(t, CallStatusRinging, call.Status)

		require.NoError(t, call.Answer(agentID))
		assert.Equal(t, CallStatusAnswered, call.Status)
		assert.True(t, call.IsLive())
		require.NotNil(t, call.AnsweredAt)
		require.NotNil(t, call.HandledBy)
		assert.Equal(t, agentID, *call.HandledBy)

		require.NoError(t, call.Hold())
		require.NoError(t, call.Resume())
		require.NoError(t, call.StartRecording())
		assert.Equal(t, CallStatusRecording, call.Status)
		require.NoError(t, call.StopRecording())

		require.NoError(t, call.End())
		assert.Equal(t, CallStatusEnded, call.Status)
		assert.True(t, call.Status.IsTerminal())
		require.NotNil(t, call.EndedAt)
		assert.GreaterOrEqual(t, call.DurationSeconds, 0)
	})

	t.Run("answer directly from initiated", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		assert.Equal(t, CallStatusAnswered, call.Status)
	})

	t.Run("unanswered call closed as missed", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Ring())
		require.NoError(t, call.Close(CallStatusMissed))

		assert.Equal(t, CallStatusMissed, call.Status)
		assert.Nil(t, call.AnsweredAt)
		assert.NotNil(t, call.EndedAt)
		assert.Zero(t, call.DurationSeconds)
	})

	t.Run("live call cannot be closed as missed", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		assert.Error(t, call.Close(CallStatusMissed))
	})

	t.Run("close outcome must be an unanswered terminal status", func(t *testing.T) {
		call := newTestCall(t)
		assert.Error(t, call.Close(CallStatusEnded))
		assert.Error(t, call.Close(CallStatusAnswered))
	})

	t.Run("transfer closes from hold", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		require.NoError(t, call.Hold())
		require.NoError(t, call.Transfer())
		assert.Equal(t, CallStatusTransferred, call.Status)
		assert.True(t, call.Status.IsTerminal())
	})

	t.Run("terminal call rejects further transitions", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		require.NoError(t, call.End())

		assert.Error(t, call.Ring())
		assert.Error(t, call.Answer(agentID))
		assert.Error(t, call.Hold())
		assert.Error(t, call.Close(CallStatusFailed))
	})

	t.Run("cannot hold or end before answer", func(t *testing.T) {
		call := newTestCall(t)
		assert.Error(t, call.Hold())
		assert.Error(t, call.End())
		assert.Error(t, call.StartRecording())
	})

	t.Run("recording only from plain answered", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		require.NoError(t, call.Hold())
		assert.Error(t, call.StartRecording())
	})

	t.Run("duration measured from answer to end", func(t *testing.T) {
		call := newTestCall(t)
		require.NoError(t, call.Answer(agentID))
		past := time.Now().Add(-90 * time.Second)
		call.AnsweredAt = &past
		require.NoError(t, call.End())
		assert.InDelta(t, 90, call.DurationSeconds, 2)
	})
}

func TestCallMetadata(t *testing.T) {
	call := newTestCall(t)

	t.Run("quality score bounds", func(t *testing.T) {
		require.NoError(t, call.SetQualityScore(4.2))
		assert.InDelta(t, 4.2, *call.QualityScore, 0.001)
		assert.Error(t, call.SetQualityScore(-0.1))
		assert.Error(t, call.SetQualityScore(5.1))
	})

	t.Run("sip and client association", func(t *testing.T) {
		call.AttachSipCallID("  abc123@sip.example.com ")
		assert.Equal(t, "abc123@sip.example.com", call.SipCallID)

		clientID := uuid.New()
		call.AssignClient(clientID)
		require.NotNil(t, call.ClientID)
		assert.Equal(t, clientID, *call.ClientID)

		call.AssignClient(uuid.Nil)
		assert.Equal(t, clientID, *call.ClientID, "nil assignment ignored")
	})
}

func TestCallEvents(t *testing.T) {
	tenantID := uuid.New()
	callID := uuid.New()

	t.Run("append timeline entry with context", func(t *testing.T) {
		userID := uuid.New()
		event, err := NewCallEvent(tenantID, callID, CallEventDTMF)
		require.NoError(t, err)
		event.WithUser(userID).WithMetadata(map[string]any{"digit": "5"})

		assert.Equal(t, CallEventDTMF, event.EventType)
		assert.Equal(t, userID, *event.UserID)
		assert.Equal(t, "5", event.Metadata["digit"])
		assert.WithinDuration(t, time.Now(), event.OccurredAt, time.Minute)
	})

	t.Run("rejects unknown event type", func(t *testing.T) {
		_, err := NewCallEvent(tenantID, callID, "yodel")
		assert.Error(t, err)
	})
}

func TestCallRecordingLifecycle(t *testing.T) {
	newRec := func(t *testing.T) *CallRecording {
		rec, err := NewCallRecording(uuid.New(), uuid.New())
		require.NoError(t, err)
		return rec
	}

	t.Run("pending to completed", func(t *testing.T) {
		rec := newRec(t)
		require.NoError(t, rec.Start())
		assert.NotNil(t, rec.StartedAt)
		require.NoError(t, rec.Process())
		require.NoError(t, rec.Complete("tenants/t1/recordings/r1.wav", "https://cdn.example/r1.wav", 1024, 42))

		assert.Equal(t, RecordingStatusCompleted, rec.Status)
		assert.True(t, rec.IsPlayable())
		assert.Equal(t, 42, rec.DurationSeconds)
		assert.NotNil(t, rec.CompletedAt)
		assert.Len(t, rec.GetDomainEvents(), 1)
	})

	t.Run("complete straight from recording", func(t *testing.T) {
		rec := newRec(t)
		require.NoError(t, rec.Start())
		require.NoError(t, rec.Complete("k", "", 10, 1))
		assert.True(t, rec.IsPlayable())
	})

	t.Run("empty storage key rejected", func(t *testing.T) {
		rec := newRec(t)
		require.NoError(t, rec.Start())
		assert.Error(t, rec.Complete("", "", 10, 1))
	})

	t.Run("failure keeps reason, completed cannot fail", func(t *testing.T) {
		rec := newRec(t)
		require.NoError(t, rec.Start())
		require.NoError(t, rec.Fail("upload timeout"))
		assert.Equal(t, "upload timeout", rec.FailureReason)
		assert.False(t, rec.IsPlayable())

		done := newRec(t)
		require.NoError(t, done.Start())
		require.NoError(t, done.Complete("k", "", 10, 1))
		assert.Error(t, done.Fail("too late"))
	})

	t.Run("deleted recording is tombstoned", func(t *testing.T) {
		rec := newRec(t)
		require.NoError(t, rec.Start())
		require.NoError(t, rec.Complete("k", "https://cdn.example/r.wav", 10, 1))
		require.NoError(t, rec.MarkDeleted())

		assert.Equal(t, RecordingStatusDeleted, rec.Status)
		assert.Empty(t, rec.FileURL)
		assert.False(t, rec.IsPlayable())
		assert.Error(t, rec.Start())
	})
}

func TestClient(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creation normalizes contact details", func(t *testing.T) {
		client, err := NewClient(tenantID, "  Giorgi  ", "Giorgi@Example.COM", "+995 555 111222")
		require.NoError(t, err)
		assert.Equal(t, "Giorgi", client.Name)
		assert.Equal(t, "giorgi@example.com", client.Email)
		assert.Equal(t, "+995555111222", client.Phone)
		assert.True(t, client.IsActive)
	})

	t.Run("update leaves blanks untouched", func(t *testing.T) {
		client, err := NewClient(tenantID, "Giorgi", "g@example.com", "+995555111222")
		require.NoError(t, err)
		require.NoError(t, client.Update("", "", "", "Acme LLC"))
		assert.Equal(t, "Giorgi", client.Name)
		assert.Equal(t, "Acme LLC", client.Company)
	})

	t.Run("invalid inputs rejected", func(t *testing.T) {
		_, err := NewClient(tenantID, "", "", "")
		assert.Error(t, err)
		_, err = NewClient(tenantID, "X", "not-email", "")
		assert.Error(t, err)
		_, err = NewClient(tenantID, "X", "", "abc")
		assert.Error(t, err)
	})
}
