package sqlinline

// SQLite dialect of the conversation document table. The document column holds
// JSON text and timestamp the float seconds used for ordering.

const QLiteEnsureConversations = `--sql c01d6d77-ee93-41ba-bc08-e19aa52698c2
create table if not exists conversations (
  id text primary key,
  type text not null,
  question text not null,
  document text not null,
  timestamp real not null
);
`

const QLiteEnsureConversationsTimestampIdx = `--sql d36a9cbc-2989-46d0-8831-11d25a784e61
create index if not exists idx_conversations_timestamp on conversations (timestamp);
`

const QLiteUpsertConversation = `--sql a43fd0b3-3720-4d25-9fb9-712c053ad8b2
insert into conversations (id, type, question, document, timestamp)
values (?, ?, ?, ?, ?)
on conflict (id) do update set
  type = excluded.type,
  question = excluded.question,
  document = excluded.document,
  timestamp = excluded.timestamp;
`

const QLiteGetConversation = `--sql 5799fd9b-b45a-417a-9c93-8c58ca6415e2
select document
from conversations
where id = ?;
`

const QLiteListConversations = `--sql 7f49e23d-cdb4-4000-ad62-42306d8faeda
select id, document
from conversations;
`

const QLiteDeleteConversation = `--sql 63961e78-33bc-4219-a346-52d4e2c99d70
delete from conversations
where id = ?;
`
