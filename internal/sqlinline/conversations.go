package sqlinline

const QEnsureConversations = `--sql 4386667a-799c-4285-a0b1-5d66984e24ff
create table if not exists conversations (
  id text primary key,
  type text not null,
  question text not null,
  document jsonb not null,
  created_at timestamptz not null,
  updated_at timestamptz not null default now()
);
`

const QEnsureConversationsCreatedIdx = `--sql 78743639-8d57-4246-bdac-dbc9b438d2e8
create index if not exists conversations_created_at_idx on conversations (created_at desc);
`

const QUpsertConversation = `--sql f2e0bdcb-4aca-4292-8101-7361e864136f
insert into conversations (id, type, question, document, created_at)
values ($1, $2, $3, $4::jsonb, to_timestamp($5::double precision))
on conflict (id) do update
set type = excluded.type,
    question = excluded.question,
    document = excluded.document,
    created_at = excluded.created_at,
    updated_at = now();
`

const QGetConversation = `--sql 19892e03-40a1-49df-b4c8-61f503200312
select document
from conversations
where id = $1;
`

const QListConversations = `--sql d3ea6000-9492-48f3-9949-10dd33497b15
select id, document
from conversations;
`

const QDeleteConversation = `--sql 8c34e08f-aad7-4080-8538-f16d88438a21
delete from conversations
where id = $1;
`
